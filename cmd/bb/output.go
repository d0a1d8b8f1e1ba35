package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputJSON prints v for --json. Encoding failures are fatal.
func outputJSON(v any) {
	if err := writeIndentedJSON(os.Stdout, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

// outputJSONError reports err as {"error", "code"} on stderr and exits 1.
func outputJSONError(err error, code string) {
	payload := struct {
		Error string `json:"error"`
		Code  string `json:"code,omitempty"`
	}{Error: err.Error(), Code: code}
	_ = writeIndentedJSON(os.Stderr, payload)
	os.Exit(1)
}
