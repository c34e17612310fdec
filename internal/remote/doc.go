// Package remote implements the clients for the remote document store and
// identity provider.
//
// DocumentClient reads the event collection and writes user profile
// documents over a Firestore-style REST API:
//
//	GET  {base}/v1/collections/{collection}/documents
//	PUT  {base}/v1/collections/{collection}/documents/{id}
//
// IdentityClient signs users in and up over a Firebase-style REST API:
//
//	POST {base}/v1/accounts:signInWithPassword
//	POST {base}/v1/accounts:signUp
//
// The identity client keeps the signed-in Principal and acts as an
// oauth2.TokenSource, so document writes carry the principal's ID token as a
// bearer token. Reads of the event collection are unauthenticated.
//
// Failures are typed: *TransportError for network and protocol failures,
// *AuthError for credentials the provider rejected.
package remote
