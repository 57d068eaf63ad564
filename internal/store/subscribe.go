package store

import "go.uber.org/zap"

// Subscribe registers a listener for changes. Sends never block: a change is
// dropped for a subscriber whose buffer is full. The returned func
// unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.subMu.Unlock()

	var once bool
	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if once {
			return
		}
		once = true
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- c:
		default:
			s.logger.Debug("Subscriber buffer full, dropping change",
				zap.Int("subscriber", id), zap.String("kind", string(c.Kind)))
		}
	}
}
