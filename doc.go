// SPDX-License-Identifier: EPL-2.0

// Package audstream plays PCM audio from files through a single output
// device, either fully loaded in memory or streamed from disk in chunks.
//
// # Overview
//
// A FileReader (formats/wav, formats/aiff) exposes the raw PCM payload of a
// file. A Source wraps a reader and hands out Buffers:
//
//   - a resident source (stream.NewResidentSource) loads the whole payload
//     into one buffer;
//   - a streaming source (stream.NewStreamSource) keeps a ring of three
//     chunk buffers refilled by a background Worker.
//
// The playback Engine binds sources to Voices, one per playing sound, and
// feeds their buffers to the device compiled into the build:
//
//   - default: a headless software clock, no audio driver needed;
//   - -tags oto: a pull device on github.com/ebitengine/oto/v3;
//   - -tags beep: a push device on github.com/gopxl/beep/v2.
//
// # Quick Start
//
//	e, _ := playback.Create(playback.DefaultConfig())
//	defer e.Close()
//
//	r, _ := audstream.OpenReader(afero.NewOsFs(), "music.wav")
//	src := e.NewStreamSource(r, true)
//	_ = src.OpenStream(func(s audio.Source, ok bool) {
//		// runs on the worker once the first chunk is ready
//	})
//
//	// later, once open:
//	v, _ := e.CreateVoice(src, false)
//	v.Play()
//
//	for e.WaitNextUpdateEvent(ctx) == nil {
//		e.Update(dt)
//	}
//
// See the individual subpackages for more detailed documentation.
package audstream
