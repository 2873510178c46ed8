// Package audit delivers engine events to a pluggable Sink off the request
// path.
//
// The engine builds one Dispatcher from its audit config and emits an Event
// for each admission, enrollment, verification, challenge, and token
// decision. Events name the uid, factor, service, and outcome; they never
// carry digests, secrets, codes, or tokens.
package audit
