// Package builtin provides the functions callable from ${...} references in
// suite files.
//
// Available functions:
//   - uuid(): Random UUID v4
//   - now(): Current UTC time in RFC 3339
//   - timestamp(), timestampMs(): Current Unix time
//   - date(layout): Current UTC date, default layout 2006-01-02
//   - random(min, max): Random integer in the closed range
//   - randomString(length), randomEmail(): Random test data
//   - base64(value), urlEncode(value), sha256(value): Encoders
//
// Functions are invoked as ${$name(args)}, for example ${$random(1, 10)}.
package builtin
