package cli

import _ "embed"

//go:embed assets/docfind.js
var defaultShim []byte
