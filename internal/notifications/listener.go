package notifications

import (
	"context"
	"log"
	"time"
)

// Watch polls a recipient's unread count and emits it whenever it changes.
// The channel closes when ctx is cancelled. Poll errors are logged and the
// watcher keeps going; a feed that lags is better than one that dies.
func (s *Store) Watch(ctx context.Context, recipientID string, interval time.Duration) <-chan int {
	ch := make(chan int, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := -1
		for {
			count, err := s.UnreadCount(ctx, recipientID)
			if err != nil {
				log.Printf("[notifications] watch poll failed for %s: %v", recipientID, err)
			} else if count != last {
				last = count
				select {
				case ch <- count:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
