package core

import (
	"context"
	"sync"
	"time"
)

// DefaultQueries are the read-only commands polled for the whole session.
func DefaultQueries() []*Command {
	return []*Command{
		{Name: CommandReadUptime},
		QueryCommand(CommandVolume),
		QueryCommand(CommandBeat),
		QueryCommand(CommandTempo),
	}
}

// InitialQueries are sent once when a session starts so the mirrored state
// does not wait a full poll period.
func InitialQueries() []*Command {
	return []*Command{
		QueryCommand(CommandVolume),
		QueryCommand(CommandBeat),
		QueryCommand(CommandTempo),
	}
}

// Poller sends each of its queries on its own ticker, all at the same period.
type Poller struct {
	period  time.Duration
	queries []*Command
}

func NewPoller(period time.Duration, queries ...*Command) *Poller {
	return &Poller{
		period:  period,
		queries: queries,
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context, send func(ctx context.Context, command *Command) error) {
	var wg sync.WaitGroup
	for _, query := range p.queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(p.period)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := send(ctx, query); err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
}
