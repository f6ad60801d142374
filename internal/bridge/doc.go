// Package bridge provides the HTTP transport for a Hue-class bridge
// and helpers for working with its raw resources.
//
// Resources are deliberately kept as opaque map[string]any bags rather
// than typed structs: the encoder must preserve every field it does not
// understand, and a struct would silently drop unknown keys on the
// decode/encode round trip. Typed accessors (ResourceID, ResourceName)
// read out of the bag without claiming ownership of it.
//
// The Transport interface is the injection point for tests; Client is
// the real implementation speaking the bridge's v2 REST surface with
// application-key authentication.
package bridge
