package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

type Source interface {
	Process([][]float32)
}

type Ticker interface {
	Tick(numSamples int)
}

// Driver pulls buffers from a Sink at the audio rate. The driver's
// callback goroutine is the only one that advances voice clocks.
type Driver interface {
	Start() error
	Close() error
}

// Sink clears the output, ticks the tickers and then renders the sources
// into it. Sources and tickers must be added before a driver starts.
type Sink struct {
	sources []Source
	tickers []Ticker
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) AddSources(sources ...Source) {
	s.sources = append(s.sources, sources...)
}

func (s *Sink) AddTicker(ticker Ticker) {
	s.tickers = append(s.tickers, ticker)
}

func (s *Sink) Process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0.
		}
	}
	for _, ticker := range s.tickers {
		ticker.Tick(len(samples[0]))
	}
	for _, source := range s.sources {
		source.Process(samples)
	}
}

// NewDriver returns the driver registered under name: "portaudio" for the
// default output device, "sim" for a silent wall clock driver.
func NewDriver(name string, sink *Sink, sampleRate float64, bufferSize int) (Driver, error) {
	switch name {
	case "portaudio":
		return NewPortAudioDriver(sink, sampleRate, bufferSize)
	case "sim":
		return NewSimDriver(sink, sampleRate, bufferSize), nil
	default:
		return nil, fmt.Errorf("unknown driver: %s", name)
	}
}

type PortAudioDriver struct {
	stream    *portaudio.Stream
	closeOnce sync.Once
}

func NewPortAudioDriver(sink *Sink, sampleRate float64, bufferSize int) (*PortAudioDriver, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, bufferSize, sink.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	return &PortAudioDriver{stream: stream}, nil
}

func (d *PortAudioDriver) Start() error {
	return d.stream.Start()
}

func (d *PortAudioDriver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.stream.Close()
		portaudio.Terminate()
	})
	return err
}
