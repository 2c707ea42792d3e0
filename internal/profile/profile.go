// Package profile loads the candidate profile used to fill application forms.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/autoapply/internal/schemas"
	"github.com/jonathan/autoapply/internal/types"
	schemafiles "github.com/jonathan/autoapply/schemas"
)

// LoadError represents errors loading or validating a profile file
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("profile %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("profile %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load reads a profile from a .json, .yaml or .yml file, validates it against
// the user profile schema and the struct rules, and resolves resume_path
// relative to the profile's directory.
func Load(path string) (*types.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read profile file", Cause: err}
	}

	p, err := Parse(data, filepath.Ext(path))
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Path = path
		}
		return nil, err
	}

	if err := resolveResume(p, filepath.Dir(path)); err != nil {
		return nil, &LoadError{Path: path, Message: "resume is not usable", Cause: err}
	}
	return p, nil
}

// Parse decodes and validates profile content. ext selects the format; any
// extension other than .yaml or .yml is treated as JSON.
func Parse(data []byte, ext string) (*types.UserProfile, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "failed to parse profile YAML", Cause: err}
		}
		if doc == nil {
			return nil, &LoadError{Path: "(yaml)", Message: "profile is empty"}
		}
		if err := schemas.ValidateDocument(schemafiles.UserProfile, doc); err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "profile does not match schema", Cause: err}
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, &LoadError{Path: "(yaml)", Message: "failed to convert profile YAML", Cause: err}
		}
		return decode(converted, "(yaml)")
	}

	if !json.Valid(data) {
		return nil, &LoadError{Path: "(json)", Message: "failed to parse profile JSON"}
	}
	if err := schemas.ValidateJSONString(schemafiles.UserProfile, string(data)); err != nil {
		return nil, &LoadError{Path: "(json)", Message: "profile does not match schema", Cause: err}
	}
	return decode(data, "(json)")
}

func decode(raw []byte, name string) (*types.UserProfile, error) {
	var p types.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &LoadError{Path: name, Message: "failed to decode profile", Cause: err}
	}
	if err := p.Validate(); err != nil {
		return nil, &LoadError{Path: name, Message: "profile failed validation", Cause: err}
	}
	return &p, nil
}

// resolveResume makes ResumePath absolute and, for plain-text resumes, fills
// ResumeText when the profile left it empty.
func resolveResume(p *types.UserProfile, dir string) error {
	if !filepath.IsAbs(p.ResumePath) {
		p.ResumePath = filepath.Join(dir, p.ResumePath)
	}
	info, err := os.Stat(p.ResumePath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p.ResumePath)
	}

	switch strings.ToLower(filepath.Ext(p.ResumePath)) {
	case ".txt", ".md":
		if strings.TrimSpace(p.ResumeText) == "" {
			text, err := os.ReadFile(p.ResumePath)
			if err != nil {
				return err
			}
			p.ResumeText = strings.TrimSpace(string(text))
		}
	}
	return nil
}
