package runloop

import "syscall"

// pollFds checks every registered monitor once with a zero timeout and
// fires its callback for whatever events are currently set. It never
// blocks; blocking is the idle-wait select in Run.
func (l *Loop) pollFds() bool {
	l.mu.Lock()
	if len(l.monitors) == 0 {
		l.mu.Unlock()
		return false
	}
	pfds := make([]syscall.PollFd, 0, len(l.monitors))
	handles := make([]*fdMonitor, 0, len(l.monitors))
	for _, m := range l.monitors {
		pfds = append(pfds, syscall.PollFd{Fd: int32(m.fd), Events: int16(toPollEvents(m.events))})
		handles = append(handles, m)
	}
	l.mu.Unlock()

	n, err := syscall.Poll(pfds, 0)
	if err != nil || n <= 0 {
		return false
	}

	didWork := false
	for i, pfd := range pfds {
		revents := fromPollEvents(uint32(pfd.Revents))
		if revents == 0 {
			continue
		}
		handles[i].handle(handles[i].fd, revents)
		didWork = true
	}
	return didWork
}

func toPollEvents(m EventMask) uint32 {
	var out uint32
	if m&In != 0 {
		out |= syscall.POLLIN
	}
	if m&Pri != 0 {
		out |= syscall.POLLPRI
	}
	if m&Out != 0 {
		out |= syscall.POLLOUT
	}
	return out
}

func fromPollEvents(revents uint32) EventMask {
	var out EventMask
	if revents&syscall.POLLIN != 0 {
		out |= In
	}
	if revents&syscall.POLLPRI != 0 {
		out |= Pri
	}
	if revents&syscall.POLLOUT != 0 {
		out |= Out
	}
	if revents&syscall.POLLERR != 0 {
		out |= Err
	}
	if revents&syscall.POLLHUP != 0 {
		out |= Hup
	}
	if revents&syscall.POLLNVAL != 0 {
		out |= Nval
	}
	return out
}
