package eventbus

// SubscribeTyped adapts a bus subscription into a channel that only
// carries events of type T; everything else on the bus is skipped. The
// typed channel closes when the bus closes or cancel is called.
func SubscribeTyped[T any](b EventBus) (<-chan T, func()) {
	raw := b.Subscribe()
	out := make(chan T, subscriberBuffer)
	go func() {
		defer close(out)
		for ev := range raw {
			t, ok := ev.(T)
			if !ok {
				continue
			}
			select {
			case out <- t:
			default:
			}
		}
	}()
	return out, func() { b.Unsubscribe(raw) }
}
