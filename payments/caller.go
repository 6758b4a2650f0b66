package payments

import (
	"github.com/ethereum/go-ethereum/common"
)

// CallerResolver recovers the effective caller of a dispatched payload.
//
// The trusted forwarder appends the original signer's 20-byte address to the
// payload it dispatches. The suffix is trusted only when the immediate caller
// is that forwarder; any other caller is taken at face value and the payload
// is left untouched. This is what lets downstream logic observe the signer of
// a relayed request, not the relay, as the caller.
type CallerResolver struct {
	trustedForwarder common.Address
}

// NewCallerResolver creates a resolver trusting the given forwarder identity.
func NewCallerResolver(trustedForwarder common.Address) CallerResolver {
	return CallerResolver{trustedForwarder: trustedForwarder}
}

// TrustedForwarder returns the relay identity the resolver trusts.
func (r CallerResolver) TrustedForwarder() common.Address {
	return r.trustedForwarder
}

// Resolve returns the effective caller and the payload with any trusted
// suffix stripped.
func (r CallerResolver) Resolve(rawCaller common.Address, data []byte) (common.Address, []byte) {
	if rawCaller == r.trustedForwarder && r.trustedForwarder != (common.Address{}) && len(data) >= common.AddressLength {
		split := len(data) - common.AddressLength
		return common.BytesToAddress(data[split:]), data[:split]
	}
	return rawCaller, data
}
