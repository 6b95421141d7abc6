// Package protocol implements the sidecar's request/response channel: one
// JSON object per line in, exactly one JSON object per line out.
//
// # Wire Format
//
// Requests are UTF-8 JSON, newline-delimited:
//
//	{"id": "r1", "type": "ping"}
//	{"id": "r2", "type": "detect", "image": "<base64 PNG>",
//	 "options": {"confidence_threshold": 0.3, "iou_threshold": 0.5}}
//
// Responses carry the originating id and a type tag of "pong", "result", or
// "error". The server processes one line fully before reading the next and
// writes each response unbuffered, so a caller can drive it as a synchronous
// co-process.
//
// # Error Isolation
//
// Every failure during dispatch — malformed JSON, unknown request type,
// validation or backend errors, even panics — is converted into an error
// response for that line. The process only stops when its input closes.
package protocol
