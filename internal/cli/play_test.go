//go:build !oto && !beep

package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/ik5/audstream/audio"
	"github.com/spf13/afero"
)

func TestPlay(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"--resident=false", "--resident"} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			if _, err := run(t, fs, "tone", "a.wav", "--rate", "8000", "--duration", "50ms"); err != nil {
				t.Fatal(err)
			}
			if _, err := run(t, fs, "tone", "b.wav", "--rate", "8000", "--duration", "80ms", "--channels", "2"); err != nil {
				t.Fatal(err)
			}

			out, err := run(t, fs, "play", "a.wav", "b.wav", mode, "--period", "5ms", "--chunk-size", "256", "--duration", "10s")
			if err != nil {
				t.Fatalf("play error = %v", err)
			}

			for _, want := range []string{
				"playing a.wav",
				"playing b.wav",
				"finished a.wav after 50ms",
				"finished b.wav after 80ms",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("play output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestPlay_LoopStopsAtDuration(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if _, err := run(t, fs, "tone", "a.wav", "--rate", "8000", "--duration", "20ms"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, fs, "play", "a.wav", "--loop", "--period", "5ms", "--duration", "100ms")
	if err != nil {
		t.Fatalf("play error = %v", err)
	}
	if strings.Contains(out, "finished") {
		t.Errorf("looping voice finished:\n%s", out)
	}
}

func TestPlay_UnknownFile(t *testing.T) {
	t.Parallel()

	_, err := run(t, afero.NewMemMapFs(), "play", "a.flac")
	if !errors.Is(err, audio.ErrUnknownExtension) {
		t.Errorf("play error = %v, want ErrUnknownExtension", err)
	}
}
