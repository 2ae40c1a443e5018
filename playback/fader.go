// SPDX-License-Identifier: EPL-2.0

package playback

import "sync"

// Fader ramps a voice's volume linearly between 0 and 1. The zero value is
// silent and idle.
type Fader struct {
	mtx        sync.Mutex
	volume     float32
	speed      float32
	onFinished func(*Fader)
}

var _ Effect = (*Fader)(nil)

// FadeIn ramps the volume up at speed per second. onFinished runs once when
// the volume reaches 1, or right away if it is already there.
func (f *Fader) FadeIn(speed float32, onFinished func(*Fader)) {
	f.mtx.Lock()
	f.speed = speed
	f.onFinished = onFinished
	done := f.volume == 1
	f.mtx.Unlock()

	if done && onFinished != nil {
		onFinished(f)
	}
}

// FadeOut ramps the volume down at speed per second. onFinished runs once
// when the volume reaches 0, or right away if it is already there.
func (f *Fader) FadeOut(speed float32, onFinished func(*Fader)) {
	f.mtx.Lock()
	f.speed = -speed
	f.onFinished = onFinished
	done := f.volume == 0
	f.mtx.Unlock()

	if done && onFinished != nil {
		onFinished(f)
	}
}

// fadeSnap absorbs the rounding left by frame steps that are not exact
// binary fractions.
const fadeSnap = 1e-5

func (f *Fader) Update(dt float32) {
	f.mtx.Lock()
	prev := f.volume
	f.volume = min(max(f.volume+f.speed*dt, 0), 1)
	switch {
	case f.speed > 0 && f.volume >= 1-fadeSnap:
		f.volume = 1
	case f.speed < 0 && f.volume <= fadeSnap:
		f.volume = 0
	}
	edge := f.volume != prev && (f.volume == 0 || f.volume == 1)
	cb := f.onFinished
	f.mtx.Unlock()

	if edge && cb != nil {
		cb(f)
	}
}

// Apply sets the voice volume every frame, whether or not a fade is running.
func (f *Fader) Apply(v *Voice) {
	v.SetVolume(f.Volume())
}

func (f *Fader) Volume() float32 {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return f.volume
}

// SetVolume jumps to vol without firing the completion callback.
func (f *Fader) SetVolume(vol float32) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.volume = min(max(vol, 0), 1)
}
