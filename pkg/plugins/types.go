package plugins

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// Manifest describes a plugin's identity and the capabilities it asks the host for.
// It is decoded from the @manifest block in plugin.js and never modified afterwards.
type Manifest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	PluginCode  string `json:"pluginCode"`
	Category    string `json:"category"`

	AuthorEmail         string   `json:"authorEmail,omitempty"`
	AuthorWebsite       string   `json:"authorWebsite,omitempty"`
	License             string   `json:"license,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	MinStorenestVersion string   `json:"minStorenestVersion,omitempty"`

	Permissions    []Permission `json:"permissions,omitempty"`
	AllowedTables  []string     `json:"allowedTables,omitempty"`
	AllowedDomains []string     `json:"allowedDomains,omitempty"`
	Hooks          []string     `json:"hooks,omitempty"`

	RateLimit        *float64 `json:"rateLimit,omitempty"`
	MaxExecutionTime *float64 `json:"maxExecutionTime,omitempty"` // milliseconds

	// shapes remembers how the list fields were written so the validator can
	// reject scalars and objects where a sequence is required.
	shapes map[string]fieldShape

	// raw is the manifest object exactly as it appeared in the source
	raw json.RawMessage
}

// manifestKeys are the exact-case JSON names Manifest decodes
var manifestKeys = jsonKeys(reflect.TypeOf(Manifest{}))

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

// fieldShape is the JSON form a declared field took in the source
type fieldShape struct {
	present  bool
	truthy   bool
	sequence bool
}

// UnmarshalJSON decodes a manifest, keeping non-sequence list fields as shapes
// instead of failing, so they surface as validation errors. Keys are matched
// by exact case, and optional fields nothing validates are left unset when
// they have the wrong JSON type.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	// encoding/json folds key case, so "NAME" would otherwise fill Name
	for key := range fields {
		if !manifestKeys[key] {
			delete(fields, key)
		}
	}
	exact, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	type alias Manifest
	aux := struct {
		*alias
		Permissions         json.RawMessage `json:"permissions"`
		AllowedTables       json.RawMessage `json:"allowedTables"`
		AllowedDomains      json.RawMessage `json:"allowedDomains"`
		AuthorEmail         json.RawMessage `json:"authorEmail"`
		AuthorWebsite       json.RawMessage `json:"authorWebsite"`
		License             json.RawMessage `json:"license"`
		Tags                json.RawMessage `json:"tags"`
		MinStorenestVersion json.RawMessage `json:"minStorenestVersion"`
		Hooks               json.RawMessage `json:"hooks"`
		RateLimit           json.RawMessage `json:"rateLimit"`
		MaxExecutionTime    json.RawMessage `json:"maxExecutionTime"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(exact, &aux); err != nil {
		return err
	}

	decodeLoose(aux.AuthorEmail, &m.AuthorEmail)
	decodeLoose(aux.AuthorWebsite, &m.AuthorWebsite)
	decodeLoose(aux.License, &m.License)
	decodeLoose(aux.Tags, &m.Tags)
	decodeLoose(aux.MinStorenestVersion, &m.MinStorenestVersion)
	decodeLoose(aux.Hooks, &m.Hooks)
	decodeLoose(aux.RateLimit, &m.RateLimit)
	decodeLoose(aux.MaxExecutionTime, &m.MaxExecutionTime)

	m.raw = append(json.RawMessage(nil), data...)
	m.shapes = make(map[string]fieldShape, 3)
	if err := decodeSequence(m.shapes, "permissions", aux.Permissions, &m.Permissions); err != nil {
		return err
	}
	if err := decodeSequence(m.shapes, "allowedTables", aux.AllowedTables, &m.AllowedTables); err != nil {
		return err
	}
	return decodeSequence(m.shapes, "allowedDomains", aux.AllowedDomains, &m.AllowedDomains)
}

// Raw returns the manifest object as written in plugin.js, or nil when the
// manifest was not decoded from source.
func (m *Manifest) Raw() json.RawMessage {
	return m.raw
}

// decodeLoose sets dst from raw only when raw has a compatible JSON type
func decodeLoose[T any](raw json.RawMessage, dst *T) {
	if len(raw) == 0 {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// shape returns how field was declared; the zero value means absent
func (m *Manifest) shape(field string) fieldShape {
	if m.shapes == nil {
		return fieldShape{}
	}
	return m.shapes[field]
}

func decodeSequence[T any](shapes map[string]fieldShape, field string, raw json.RawMessage, dst *[]T) error {
	s := shapeOf(raw)
	shapes[field] = s
	if !s.sequence {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// shapeOf classifies a raw JSON value using JavaScript truthiness, which is
// what plugin authors expect from the manifest format.
func shapeOf(raw json.RawMessage) fieldShape {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return fieldShape{}
	}

	s := fieldShape{present: true, truthy: true}
	switch t[0] {
	case '[':
		s.sequence = true
	case 'n', 'f':
		s.truthy = false
	case '"':
		s.truthy = len(t) > 2
	case '{', 't':
	default:
		if f, err := strconv.ParseFloat(string(t), 64); err == nil && f == 0 {
			s.truthy = false
		}
	}
	return s
}

// Finding is a single forbidden-pattern match in plugin source
type Finding struct {
	Category Category `json:"category"`
	Pattern  string   `json:"pattern"`
	Match    string   `json:"match"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
}

// Category groups scan rules by the host capability they would expose
type Category string

const (
	CategoryDynamicEval          Category = "dynamic-eval"
	CategoryDynamicFunction      Category = "dynamic-function"
	CategoryTimer                Category = "timer"
	CategoryProcessIntrospection Category = "process-introspection"
	CategoryModuleLoading        Category = "module-loading"
	CategoryGlobalAccess         Category = "global-access"
	CategoryFilesystem           Category = "filesystem"
	CategoryProcessSpawn         Category = "process-spawn"
)

// Digest is a lowercase hex SHA-256 of a file's bytes
type Digest string

func (d Digest) String() string {
	return string(d)
}

// Artifact is a packaged plugin archive ready for upload
type Artifact struct {
	Path    string   `json:"path"`
	Digest  Digest   `json:"sha256"`
	Size    int64    `json:"size"`
	Entries []string `json:"entries"` // file entries in archive order
}
