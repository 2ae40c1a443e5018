// SPDX-License-Identifier: EPL-2.0

// Package audio defines the contracts shared by every part of the playback
// pipeline.
//
// # Sources
//
// A Source describes where PCM data comes from and how it is fed to a voice:
//
//	type Source interface {
//	    FeedType() FeedType
//	    StreamDesc() *StreamDesc
//	    OpenStream(onOpened StreamCallback) error
//	    CloseStream(onClosed StreamCallback) error
//	    RequestBuffer(c BufferConsumer) error
//	    ...
//	}
//
// Resident sources keep the whole clip in a single buffer and hand the same
// buffer out on every request. Streaming sources rotate a ring of buffers
// refilled in the background (see package stream).
//
// # File Readers
//
// A FileReader parses one PCM container and reads its payload in whole
// blocks. Readers are built over an OpenFunc so the surrounding engine keeps
// control of file lifetime:
//
//	open := audio.FSOpener(afero.NewOsFs(), "music/theme.wav")
//	reader := wav.NewReader(open, "theme.wav")
//	if err := reader.Open(); err != nil {
//	    // Handle error
//	}
//	fmt.Println(reader.StreamDesc())
//
// # Reader Registry
//
// The registry maps file extensions to reader factories:
//
//	registry := audio.NewRegistry()
//	registry.Register(".wav", wav.Factory)
//	factory, _ := registry.ForFile("theme.wav")
//
// # Error Handling
//
// Nothing in the pipeline panics on a runtime condition. Failures come back
// as errors wrapping the sentinels in this package:
//
//	err := src.RequestBuffer(voice)
//	switch {
//	case errors.Is(err, audio.ErrStarved):
//	    // try again next frame
//	case errors.Is(err, audio.ErrEndOfStream):
//	    // drain and stop
//	}
package audio
