// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 QuizMaster Contributors

// Package web is the HTTP boundary of the auth core.
//
// Signup and login take HTML form posts and answer with 303 redirects.
// A successful login stores the session token in the access_token cookie.
// Protected pages call the guard explicitly with the role they need; there is
// no route-level middleware that could be forgotten. Errors are rendered as
// {"detail": "..."} with a status derived from the error's sentinel, and the
// detail never includes tokens, hashes or internal causes.
package web
