package remote

// Wire types shared by the clients and the local emulator.

// DocumentJSON is one document in a collection.
type DocumentJSON struct {
	// Name is the document path, "{collection}/{id}".
	Name string `json:"name,omitempty"`
	// Fields holds the document's field values.
	Fields map[string]any `json:"fields"`
	// Transforms maps field names to server-side value transforms.
	Transforms map[string]string `json:"transforms,omitempty"`
	// CreateTime is set by the server on read.
	CreateTime string `json:"createTime,omitempty"`
	// UpdateTime is set by the server on read.
	UpdateTime string `json:"updateTime,omitempty"`
}

// DocumentListJSON is the response body of a collection read.
type DocumentListJSON struct {
	Documents []DocumentJSON `json:"documents"`
}

// TransformRequestTime asks the server to set a field to its own clock.
const TransformRequestTime = "REQUEST_TIME"

// CredentialsJSON is the request body of sign-in and sign-up.
type CredentialsJSON struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// AuthResponseJSON is the success body of sign-in and sign-up.
type AuthResponseJSON struct {
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
	IDToken   string `json:"idToken"`
	ExpiresIn string `json:"expiresIn"`
}

// ErrorJSON is the error body returned by both services.
type ErrorJSON struct {
	Error ErrorDetailJSON `json:"error"`
}

// ErrorDetailJSON carries the provider's error code and message.
type ErrorDetailJSON struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
