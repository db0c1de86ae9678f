// Package events publishes lock state changes to an MQTT broker.
//
// Publishing is optional and best effort: the control endpoint never waits
// on the broker and a failed publish is logged, not returned to the client.
//
// # Topics
//
//	<prefix>/<client_id>/state   retained JSON state document
//	<prefix>/<client_id>/status  retained "online" / "offline" (LWT)
//
// # Payload
//
//	{"state":"unlocked","previous":"locked","action":"unlock","at":"2026-10-17T10:30:45Z"}
package events
