/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ErrMalformedImport is matched by every import rejection.
var ErrMalformedImport = errors.New("malformed import")

// MalformedImportError lists why an import batch was rejected.
type MalformedImportError struct {
	Reasons []string
}

func (e *MalformedImportError) Error() string {
	return fmt.Sprintf("malformed import: %s", strings.Join(e.Reasons, "; "))
}

func (e *MalformedImportError) Unwrap() error { return ErrMalformedImport }

// ImportRecord places one image. Coordinates and sizes are canvas pixels.
type ImportRecord struct {
	ImageURL string  `json:"imageUrl"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

var (
	importSchemaOnce sync.Once
	importSchema     *gojsonschema.Schema
	importSchemaErr  error
)

func loadImportSchema() (*gojsonschema.Schema, error) {
	importSchemaOnce.Do(func() {
		importSchema, importSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(mustSchema("schema/import.schema.json")))
	})
	return importSchema, importSchemaErr
}

// ParseImport validates the whole batch before returning any record: a
// single bad record rejects everything.
func ParseImport(data []byte) ([]ImportRecord, error) {
	schema, err := loadImportSchema()
	if err != nil {
		return nil, fmt.Errorf("load import schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// not JSON at all
		return nil, &MalformedImportError{Reasons: []string{err.Error()}}
	}
	if !res.Valid() {
		reasons := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			reasons = append(reasons, e.String())
		}
		return nil, &MalformedImportError{Reasons: reasons}
	}
	var recs []ImportRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, &MalformedImportError{Reasons: []string{err.Error()}}
	}
	var reasons []string
	for i, r := range recs {
		if err := checkImageURL(r.ImageURL); err != nil {
			reasons = append(reasons, fmt.Sprintf("%d.imageUrl: %v", i, err))
		}
	}
	if len(reasons) > 0 {
		return nil, &MalformedImportError{Reasons: reasons}
	}
	return recs, nil
}

func checkImageURL(ref string) error {
	if strings.TrimSpace(ref) != ref {
		return errors.New("surrounding whitespace")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return errors.New("missing host")
		}
	case "data", "file", "":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}
