// Password storage and verification
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package proto

import "golang.org/x/crypto/bcrypt"

// storedSecret renders pw into what gets written to the player row:
// the bcrypt hash when the server is configured to hash passwords,
// or pw itself when it isn't (the original server's behavior, kept
// as an option for deployments migrating an existing plaintext
// player table).
func (s *Session) storedSecret(pw string) string {
	if !s.cfg.HashPasswords {
		return pw
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return pw
	}
	return string(hash)
}

// verifySecret checks given against the stored secret, using bcrypt's
// constant-time comparison when hashing is enabled.
func (s *Session) verifySecret(stored, given string) bool {
	if !s.cfg.HashPasswords {
		return stored == given
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
}
