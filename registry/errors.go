// Copyright 2025 Poiesic Systems
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


package registry

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrMappingStoreRequired is returned when a mapping store is not provided.
	ErrMappingStoreRequired = errors.New("mapping store required")

	// ErrModelStoreRequired is returned when a model store is not provided.
	ErrModelStoreRequired = errors.New("model store required")

	// ErrServiceRegistryRequired is returned when a service registry is not provided.
	ErrServiceRegistryRequired = errors.New("service registry required")
)
