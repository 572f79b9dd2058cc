// Package deviceid resolves the stable device id of the client behind a login request.
//
// A client that presents a device token keeps its id. A client without one is given a
// new id, derived from 256 bits of entropy and its user agent, which is persisted as a
// long-lived HTTP-only cookie. The id stays the same across logins as long as the cookie
// survives; clearing cookies makes the next login look like a new device.
//
//	resolver := deviceid.NewResolver()
//	store := deviceid.NewCookieTokenStore(w, r, deviceid.DefaultCookieName, false)
//	id := resolver.Resolve(store, r.UserAgent())
//	client := deviceid.FromRequest(r, id)
package deviceid
