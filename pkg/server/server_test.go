// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/Gadgeteer/model"
	"github.com/binkynet/Gadgeteer/pkg/service"
	"github.com/binkynet/Gadgeteer/pkg/socket"
)

type fakeService struct {
	healthy bool
}

func (f *fakeService) Healthy() bool { return f.healthy }

func (f *fakeService) Sockets() []socket.Info {
	return []socket.Info{{Number: 1, Types: "I", I2C: "I2C1"}}
}

func (f *fakeService) Modules() []service.ModuleStatus {
	return []service.ModuleStatus{{ID: "light", Type: model.ModuleTypeLightSense, Sockets: []int{5}}}
}

func (f *fakeService) DetectI2CAddresses(ctx context.Context, deviceID string) ([]byte, error) {
	if deviceID != "I2C1" {
		return nil, model.InvalidArgument("unknown I2C device '%s'", deviceID)
	}
	return []byte{0x23, 0x48}, nil
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlers(t *testing.T) {
	svc := &fakeService{}
	s, err := New(Config{}, zerolog.Nop(), svc)
	require.NoError(t, err)
	h := s.Handler()

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/health").Code)
	svc.healthy = true
	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	rec := get(t, h, "/sockets")
	require.Equal(t, http.StatusOK, rec.Code)
	var sockets []socket.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sockets))
	assert.Equal(t, "I2C1", sockets[0].I2C)

	rec = get(t, h, "/modules")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"light"`)

	rec = get(t, h, "/i2c/I2C1/addresses")
	require.Equal(t, http.StatusOK, rec.Code)
	var addrs []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addrs))
	assert.Equal(t, []string{"0x23", "0x48"}, addrs)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/i2c/I2C9/addresses").Code)

	assert.Equal(t, http.StatusOK, get(t, h, "/metrics").Code)
}
