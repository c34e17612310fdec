// Package session implements the authentication session state machine.
//
// A Coordinator holds the credentials being entered and the outcome of the
// last login or sign-up attempt:
//
//	Idle ──Login/SignUp──▶ Loading ──ok──▶ Authenticated
//	  ▲                       │
//	  │                       └──fail──▶ Error ──Edit*──▶ Idle
//	  └──────────────Logout (from any phase)──────────────┘
//
// Blank fields are rejected before any remote call. A sign-up that succeeds
// writes the user's profile before the session becomes authenticated; a
// failed profile write is logged and does not undo the sign-up.
//
// State changes are published through State and Subscribe. Subscribers see
// the latest state; intermediate states may be coalesced for slow readers.
package session
