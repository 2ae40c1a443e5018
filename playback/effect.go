// SPDX-License-Identifier: EPL-2.0

package playback

import "slices"

// Effect is attached to a voice and driven by Voice.Update while the voice
// is playing.
type Effect interface {
	// Update advances the effect by dt seconds.
	Update(dt float32)
	// Apply pushes the effect's state to v.
	Apply(v *Voice)
}

// CreateEffect attaches a new zero-valued effect of type T to v.
//
//	fader := playback.CreateEffect[playback.Fader](voice)
//	fader.FadeIn(0.5, nil)
func CreateEffect[T any, PT interface {
	*T
	Effect
}](v *Voice) PT {
	e := PT(new(T))

	v.mtx.Lock()
	v.effects = append(v.effects, e)
	v.mtx.Unlock()

	return e
}

// DestroyEffect detaches e from the voice. Destroying the same effect twice
// returns ErrEffectNotFound.
func (v *Voice) DestroyEffect(e Effect) error {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	i := slices.Index(v.effects, e)
	if i < 0 {
		return ErrEffectNotFound
	}
	v.effects = slices.Delete(v.effects, i, i+1)

	return nil
}

// Effects returns the attached effects in update order.
func (v *Voice) Effects() []Effect {
	v.mtx.Lock()
	defer v.mtx.Unlock()

	return slices.Clone(v.effects)
}
