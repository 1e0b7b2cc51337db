//go:build wasip1

// Command testplugin-wasm-manager is a manager plugin used by the tests of the wasm plugin source.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o ../../tmp/testdata/test-plugin-wasm-manager.wasm .
package main

import (
	"encoding/json"
	"errors"

	"github.com/extism/go-pdk"
)

const identifier = "managerproxy.test.wasm"

type hostSession struct {
	ID string `json:"id"`
}

type initializeInput struct {
	Settings    map[string]any `json:"settings"`
	HostSession hostSession    `json:"hostSession"`
}

var settings = map[string]any{}

//go:wasmexport identifier
func Identifier() int32 {
	pdk.OutputString(identifier)
	return 0
}

//go:wasmexport display_name
func DisplayName() int32 {
	if name, ok := settings["displayName"].(string); ok && name != "" {
		pdk.OutputString(name)
		return 0
	}
	pdk.OutputString("Test Wasm Manager")
	return 0
}

//go:wasmexport info
func Info() int32 {
	return output(map[string]any{"entityReferencePrefix": "wasm://"})
}

//go:wasmexport settings
func Settings() int32 {
	return output(settings)
}

//go:wasmexport initialize
func Initialize() int32 {
	var input initializeInput
	if err := json.Unmarshal(pdk.Input(), &input); err != nil {
		pdk.SetError(err)
		return 1
	}
	if _, fail := input.Settings["fail"]; fail {
		pdk.SetError(errors.New("initialization rejected"))
		return 1
	}
	settings = input.Settings
	pdk.Log(pdk.LogInfo, "initialized for host session "+input.HostSession.ID)
	return 0
}

func output(v any) int32 {
	b, err := json.Marshal(v)
	if err != nil {
		pdk.SetError(err)
		return 1
	}
	pdk.Output(b)
	return 0
}

func main() {}
