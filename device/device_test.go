// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"testing"
	"time"

	"github.com/ik5/voxmix/audio"
)

func TestIsHeadphoneName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"Built-in Speakers", false},
		{"External Headphones", true},
		{"USB HEADSET", true},
		{"Jabra Evolve Earbuds", true},
		{"HDMI Output", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsHeadphoneName(tt.name); got != tt.want {
			t.Errorf("IsHeadphoneName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHeadphonesActive(t *testing.T) {
	t.Parallel()

	devs := []Info{
		{Name: "Headphones", Default: false},
		{Name: "Speakers", Default: true},
	}
	if HeadphonesActive(devs) {
		t.Error("non-default headphones must not count")
	}
	devs[0].Default, devs[1].Default = true, false
	if !HeadphonesActive(devs) {
		t.Error("default headphones not detected")
	}
	if HeadphonesActive(nil) {
		t.Error("no devices means no headphones")
	}
}

func TestTickerSink_Paces(t *testing.T) {
	t.Parallel()

	s := NewTickerSink()
	if err := s.Write([]int16{1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write() before Open = %v, want ErrClosed", err)
	}

	f := audio.Format{SampleRate: 1000, BitsPerSample: 16, Channels: 1}
	if err := s.Open(f); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	for range 3 {
		if err := s.Write(make([]int16, 20)); err != nil { // 20ms each
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Errorf("three 20ms blocks took %v", elapsed)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Write([]int16{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("Write() after Close = %v, want ErrClosed", err)
	}
}

func TestTickerSink_CloseUnblocksWrite(t *testing.T) {
	t.Parallel()

	s := NewTickerSink()
	if err := s.Open(audio.Format{SampleRate: 1000, BitsPerSample: 16, Channels: 1}); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Write(make([]int16, 60_000)) }() // a minute

	time.Sleep(10 * time.Millisecond)
	_ = s.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Write() = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock Write")
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	if Input.String() != "input" || Output.String() != "output" {
		t.Errorf("Kind strings = %q, %q", Input, Output)
	}
}
