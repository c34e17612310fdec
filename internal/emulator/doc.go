// Package emulator is a local development server for the remote document
// store and identity provider that myuni talks to.
//
// It speaks the same wire format as package remote:
//
//	POST /v1/accounts:signUp
//	POST /v1/accounts:signInWithPassword
//	GET  /v1/collections/{collection}/documents
//	GET  /v1/collections/{collection}/documents/{id}
//	POST /v1/collections/{collection}/documents        (bearer token)
//	PUT  /v1/collections/{collection}/documents/{id}   (bearer token)
//	DELETE /v1/collections/{collection}/documents/{id} (bearer token)
//
// State lives in memory and can be seeded from a YAML file. Passwords are
// stored as bcrypt hashes and ID tokens are HS256 JWTs.
package emulator
