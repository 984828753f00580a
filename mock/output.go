package mock

import "sync"

// Output keeps printed findings by channel
type Output struct {
	mu    sync.Mutex
	Vulns []string
	Warns []string
	Infos []string
}

func (o *Output) Vuln(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Vulns = append(o.Vulns, msg)
}

func (o *Output) Warn(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Warns = append(o.Warns, msg)
}

func (o *Output) Info(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Infos = append(o.Infos, msg)
}

// Total messages printed
func (o *Output) Total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.Vulns) + len(o.Warns) + len(o.Infos)
}
