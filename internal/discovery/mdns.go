// ABOUTME: mDNS controller discovery and player advertisement
// ABOUTME: Browses for controllers and publishes this player on the local network
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBrowseService is the service type controllers register
	DefaultBrowseService = "_slimdevices._tcp"

	// AdvertiseService is the service type this player registers
	AdvertiseService = "_squeezego._tcp"

	browseTimeout = 3 * time.Second
)

// Config holds discovery configuration
type Config struct {
	// ServiceName is the advertised instance name
	ServiceName string
	// Port is the advertised port
	Port int
	// BrowseService defaults to DefaultBrowseService
	BrowseService string
	// TXT records published with the advertisement
	TXT    []string
	Logger *zerolog.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	browse  sync.Once
}

// ServerInfo describes a discovered controller
type ServerInfo struct {
	Name string
	Host string
	IP   net.IP
	Port int
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.BrowseService == "" {
		config.BrowseService = DefaultBrowseService
	}
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     logger.With().Str("component", "mdns").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise publishes this player via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		AdvertiseService,
		"",
		"",
		m.config.Port,
		ips,
		m.config.TXT,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Info().Str("name", m.config.ServiceName).Str("type", AdvertiseService).Msg("advertising")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for controllers in the background. Only the first call
// starts a browse loop.
func (m *Manager) Browse() {
	m.browse.Do(func() { go m.browseLoop() })
}

// browseLoop continuously browses for controllers
func (m *Manager) browseLoop() {
	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := serverFromEntry(entry)
				if server == nil {
					continue
				}
				m.log.Info().Str("name", server.Name).Str("ip", server.IP.String()).Msg("discovered controller")

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(m.config.BrowseService)
		params.Timeout = browseTimeout
		params.Entries = entries
		params.DisableIPv6 = true

		if err := mdns.QueryContext(m.ctx, params); err != nil && m.ctx.Err() == nil {
			m.log.Warn().Err(err).Msg("mdns query failed")
			select {
			case <-time.After(browseTimeout):
			case <-m.ctx.Done():
			}
		}
		close(entries)
		<-done
	}
}

// serverFromEntry keeps only entries with a usable IPv4 address
func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil || entry.AddrV4.IsUnspecified() {
		return nil
	}
	return &ServerInfo{
		Name: entry.Name,
		Host: entry.Host,
		IP:   entry.AddrV4,
		Port: entry.Port,
	}
}

// Servers returns the channel of discovered controllers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Discover browses until the first controller is found and returns its address
func (m *Manager) Discover(ctx context.Context) (net.IP, error) {
	m.Browse()
	select {
	case server := <-m.servers:
		return server.IP, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ctx.Done():
		return nil, errors.New("discovery stopped")
	}
}

// Stop stops browsing and withdraws the advertisement
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
