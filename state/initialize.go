package state

import (
	"errors"
	"time"

	"bcbook/tagger"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// TagWriter returns tagger to be used for big books: injected one if any,
// otherwise external tool from configuration.
func (e *LocalEnv) TagWriter() (tagger.Tagger, error) {
	if e.Tagger != nil {
		return e.Tagger, nil
	}
	if e.Cfg == nil {
		return nil, errors.New("configuration is not loaded")
	}
	return tagger.NewNBTUtil(e.Cfg.Tagger.Binary, e.Cfg.Tagger.Timeout)
}
