// Command podscribe downloads a podcast's episodes and transcribes them with a hosted
// speech-to-text model, caching audio and transcripts on disk.
//
//	podscribe scrape --feed URL --save-file episodes.csv [--download-size]
//	podscribe transcribe [--feed URL] [--since 2024-01-01] [--match text] [--limit N]
//	podscribe list
//	podscribe publish
//	podscribe config init
package main
