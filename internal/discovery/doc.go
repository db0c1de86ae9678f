// Package discovery announces and finds lock controllers over mDNS.
//
// A controller advertises itself as a "_smartlock._tcp" service on its
// control port with TXT records:
//
//	path=/
//	scheme=https
//	version=<build version>
//
// When the controller has a static address the A record points at that
// address rather than at whatever the host would announce for itself.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	controllers, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, c := range controllers {
//	    fmt.Println(c.Instance, c.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Controllers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
