package static

import _ "embed"

// APIMd contains the embedded API guide served at /api.md.
//
//go:embed api.md
var APIMd string
