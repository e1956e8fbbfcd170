// Package auth provides the credential primitives shared by Houseflow's
// auth handlers and its external database boundary.
//
// It implements Argon2id password hashing (OWASP 2025 recommendation) and
// the minimal user record shape the control plane needs. Token issuance
// and verification live in internal/codec; refresh-token persistence lives
// in internal/store.
package auth
