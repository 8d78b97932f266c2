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


package enrich

import "errors"

var (
	// ErrMappingResolverRequired is returned when a mapping resolver is not provided.
	ErrMappingResolverRequired = errors.New("mapping resolver required")

	// ErrProviderResolverRequired is returned when a provider resolver is not provided.
	ErrProviderResolverRequired = errors.New("provider resolver required")

	// ErrNoProviderForModel indicates a mapped model has no registered
	// inference provider. The affected item is excluded from the batch.
	ErrNoProviderForModel = errors.New("no inference provider found for model")

	// ErrMalformedInferenceRoot indicates a document carries the reserved
	// inference field with a non-object value. The affected item is excluded
	// from the batch.
	ErrMalformedInferenceRoot = errors.New("inference result field is not an object")
)
