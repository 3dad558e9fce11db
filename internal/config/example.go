package config

import _ "embed"

//go:embed example.yaml
var example []byte

// Example returns an example campaign document.
func Example() []byte {
	return append([]byte(nil), example...)
}
