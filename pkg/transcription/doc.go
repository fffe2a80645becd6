// Package transcription turns cached audio files into cached transcript files.
//
// A Cache owns a Backend (a hosted speech model). For each audio file it checks whether a
// transcript already exists next to the other transcripts; if not it uploads the audio, asks
// the backend for a transcript, writes whatever text came back and removes the upload.
//
// Backends stream text as a sequence of chunks. When a backend fails part way through (for
// example because its safety filter blocked the output), the text received so far is still
// written and the returned Result is marked partial. The transcript file then exists and
// later runs skip the episode; delete the file to retry it.
package transcription
