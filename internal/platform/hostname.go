package platform

import "fmt"

// HostHeader generates the routed host name for a service.
// Example: api.webbyftw.co.in
func HostHeader(subdomain, domain string) string {
	return fmt.Sprintf("%s.%s", subdomain, domain)
}

// ServiceURL is the public HTTPS address of a routed service.
func ServiceURL(subdomain, domain string) string {
	return "https://" + HostHeader(subdomain, domain)
}
