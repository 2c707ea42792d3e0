// Package schemas embeds the JSON Schemas for user-supplied input files.
package schemas

import (
	_ "embed"
)

// UserProfile is the schema for profile.json / profile.yaml.
//
//go:embed user_profile.schema.json
var UserProfile string
