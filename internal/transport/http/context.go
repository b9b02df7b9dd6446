// Copyright 2026 The StoreAdmin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import "context"

type contextKey string

const (
	sessionIDKey  contextKey = "session_id"
	cookieAuthKey contextKey = "cookie_auth"
)

// GetSessionID retrieves the Session ID from context.
func GetSessionID(ctx context.Context) string {
	if val, ok := ctx.Value(sessionIDKey).(string); ok {
		return val
	}
	return ""
}

// authenticatedByCookie reports whether the session came from the cookie
// rather than the Authorization header.
func authenticatedByCookie(ctx context.Context) bool {
	v, _ := ctx.Value(cookieAuthKey).(bool)
	return v
}
