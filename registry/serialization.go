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

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/semflow/ai"
)

var (
	stringSliceMUS = ord.NewSliceSer[string](ord.String)
	fieldsMapMUS   = ord.NewMapSer[string, []string](ord.String, stringSliceMUS)
	settingsMapMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

// MappingMUS serializes Mapping values in MUS format.
var MappingMUS = mappingMUS{}

type mappingMUS struct{}

func (mappingMUS) Marshal(v Mapping, bs []byte) (n int) {
	n = ord.String.Marshal(v.Index, bs)
	n += fieldsMapMUS.Marshal(v.FieldsForModels, bs[n:])
	return
}

func (mappingMUS) Unmarshal(bs []byte) (v Mapping, n int, err error) {
	v.Index, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.FieldsForModels, n1, err = fieldsMapMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (mappingMUS) Size(v Mapping) (size int) {
	size = ord.String.Size(v.Index)
	size += fieldsMapMUS.Size(v.FieldsForModels)
	return
}

func (mappingMUS) Skip(bs []byte) (n int, err error) {
	n, err = ord.String.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	n1, err = fieldsMapMUS.Skip(bs[n:])
	n += n1
	return
}

// ModelMUS serializes ai.Model values in MUS format.
var ModelMUS = modelMUS{}

type modelMUS struct{}

func (modelMUS) Marshal(v ai.Model, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(string(v.TaskType), bs[n:])
	n += ord.String.Marshal(v.Service, bs[n:])
	n += settingsMapMUS.Marshal(v.Settings, bs[n:])
	return
}

func (modelMUS) Unmarshal(bs []byte) (v ai.Model, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1       int
		taskType string
	)
	taskType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TaskType = ai.TaskType(taskType)
	v.Service, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Settings, n1, err = settingsMapMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (modelMUS) Size(v ai.Model) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(string(v.TaskType))
	size += ord.String.Size(v.Service)
	size += settingsMapMUS.Size(v.Settings)
	return
}

func (modelMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = settingsMapMUS.Skip(bs[n:])
	n += n1
	return
}

// MarshalMapping serializes a Mapping to bytes.
func MarshalMapping(m *Mapping) []byte {
	buf := make([]byte, MappingMUS.Size(*m))
	MappingMUS.Marshal(*m, buf)
	return buf
}

// UnmarshalMapping deserializes a Mapping from bytes.
func UnmarshalMapping(data []byte) (*Mapping, error) {
	m, _, err := MappingMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &m, nil
}

// MarshalModel serializes a model configuration to bytes.
func MarshalModel(m *ai.Model) []byte {
	buf := make([]byte, ModelMUS.Size(*m))
	ModelMUS.Marshal(*m, buf)
	return buf
}

// UnmarshalModel deserializes a model configuration from bytes.
func UnmarshalModel(data []byte) (*ai.Model, error) {
	m, _, err := ModelMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &m, nil
}
