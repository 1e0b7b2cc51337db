// Package v1 contains the wire schema of the manager proxy RPC service.
//
// Messages are exchanged as JSON over gRPC (content-subtype "json").
package v1

// Settings is the wire form of a settings dictionary.
// Values are JSON primitives: booleans, numbers and strings. Numbers without fraction or
// exponent are integers, all other numbers are floats.
type Settings map[string]any

// HostSession identifies the caller on whose behalf a manager is invoked.
type HostSession struct {
	ID string `json:"id"`
}

type ListIdentifiersRequest struct{}

type ListIdentifiersResponse struct {
	Identifiers []string `json:"identifiers"`
}

type InstantiateRequest struct {
	Identifier string `json:"identifier"`
}

type InstantiateResponse struct {
	Handle string `json:"handle"`
}

type DestroyRequest struct {
	Handle string `json:"handle"`
}

type DestroyResponse struct{}

type GetIdentifierRequest struct {
	Handle string `json:"handle"`
}

type GetIdentifierResponse struct {
	Identifier string `json:"identifier"`
}

type GetDisplayNameRequest struct {
	Handle string `json:"handle"`
}

type GetDisplayNameResponse struct {
	DisplayName string `json:"displayName"`
}

type GetInfoRequest struct {
	Handle string `json:"handle"`
}

type GetInfoResponse struct {
	Info Settings `json:"info"`
}

type GetSettingsRequest struct {
	Handle      string      `json:"handle"`
	HostSession HostSession `json:"hostSession"`
}

type GetSettingsResponse struct {
	Settings Settings `json:"settings"`
}

type InitializeRequest struct {
	Handle      string      `json:"handle"`
	Settings    Settings    `json:"settings"`
	HostSession HostSession `json:"hostSession"`
}

type InitializeResponse struct{}
