// Package discovery finds AutoPrint print agents on the local network.
//
// Agents advertise themselves over multicast DNS as "_autoprint._tcp"
// services. A kiosk started without an agent URL browses for them and uses
// the first one that answers.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	agents, err := scanner.ScanForAgents(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, a := range agents {
//	    fmt.Printf("Found: %s at %s\n", a.Instance, a.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Agents must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
