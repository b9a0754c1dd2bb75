package connection

// The functions below mutate the two locked rows of a pair in memory. They
// report whether anything changed so callers can skip the write.

// request records that requester asked target to connect.
func request(requester, target *Relations, policy RequestPolicy) (bool, error) {
	if requester.UserID == target.UserID {
		return false, ErrSelfConnection
	}
	if contains(requester.Connections, target.UserID) {
		return false, ErrAlreadyConnected
	}
	if contains(target.Pending, requester.UserID) {
		if policy.RejectPending {
			return false, ErrAlreadyPending
		}
		// Repair a half-written pair instead of reporting a no-op.
		if contains(requester.Sent, target.UserID) {
			return false, nil
		}
	}
	target.Pending = add(target.Pending, requester.UserID)
	requester.Sent = add(requester.Sent, target.UserID)
	return true, nil
}

// accept turns requester's pending request to self into a connection. A
// crossing request in the other direction is cleared too so the pair is
// never pending and connected at once.
func accept(self, requester *Relations) (bool, error) {
	if self.UserID == requester.UserID {
		return false, ErrSelfConnection
	}
	if !contains(self.Pending, requester.UserID) {
		return false, ErrNoPendingRequest
	}
	self.Pending = remove(self.Pending, requester.UserID)
	requester.Sent = remove(requester.Sent, self.UserID)
	requester.Pending = remove(requester.Pending, self.UserID)
	self.Sent = remove(self.Sent, requester.UserID)

	self.Connections = add(self.Connections, requester.UserID)
	requester.Connections = add(requester.Connections, self.UserID)
	return true, nil
}

// decline drops requester's pending request to self.
func decline(self, requester *Relations) bool {
	if !contains(self.Pending, requester.UserID) && !contains(requester.Sent, self.UserID) {
		return false
	}
	self.Pending = remove(self.Pending, requester.UserID)
	requester.Sent = remove(requester.Sent, self.UserID)
	return true
}

// disconnect removes the pair's connection on both sides. Pending and sent
// sets are left alone.
func disconnect(self, friend *Relations) bool {
	if !contains(self.Connections, friend.UserID) && !contains(friend.Connections, self.UserID) {
		return false
	}
	self.Connections = remove(self.Connections, friend.UserID)
	friend.Connections = remove(friend.Connections, self.UserID)
	return true
}
