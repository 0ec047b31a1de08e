/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package state

import (
	"sync"

	"github.com/rotisserie/eris"
)

var ErrBusy = eris.New("state: another request is still running")

// Store owns the current State and fans every change out to subscribers.
type Store struct {
	mu          sync.Mutex
	state       State
	nextID      int
	subscribers map[int]chan State
}

func NewStore(initial State) *Store {
	return &Store{
		state:       initial,
		subscribers: make(map[int]chan State),
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin marks the store busy with phase. It fails with ErrBusy while an
// earlier request has not finished.
func (s *Store) Begin(phase Phase) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Busy {
		return s.state, eris.Wrapf(ErrBusy, "state: busy with %s", s.state.Phase)
	}

	s.state = Started(s.state, phase)
	s.publish()
	return s.state, nil
}

// Apply replaces the state with update(current) and notifies subscribers.
func (s *Store) Apply(update func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = update(s.state)
	s.publish()
	return s.state
}

// Subscribe returns a channel receiving every new snapshot and a function
// to stop the subscription. A subscriber that falls behind loses the
// oldest snapshot it has not read yet.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	channel := make(chan State, 8)
	s.subscribers[id] = channel

	return channel, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
}

// publish must be called with mu held.
func (s *Store) publish() {
	for _, channel := range s.subscribers {
		select {
		case channel <- s.state:
		default:
			select {
			case <-channel:
			default:
			}
			channel <- s.state
		}
	}
}
