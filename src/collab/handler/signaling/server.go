package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/grandcat/zeroconf"
	"github.com/knowtis/knowtis-collab/src/collab/internal/logfilewriter"
	"github.com/knowtis/knowtis-collab/src/collab/internal/serverinfofile"
	"github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKey     = "signaling"
	_path          = "/ws"
	_topicsPath    = "/topics"
	_addressOutput = "signaling-address"
	_urlOutput     = "signaling-url"
	_mdnsDomain    = "local."
)

// Config of the signaling hub. The hub only listens when Address is set.
type Config struct {
	Address string `yaml:"address"`
	// Announce is an mDNS service type, for example _knowtis-signaling._tcp. Empty disables the announcement.
	Announce string `yaml:"announce"`
	// TrafficLog writes every hub event to a temporary file whose path is published in the server info file.
	TrafficLog    bool   `yaml:"trafficLog"`
	TrafficLogDir string `yaml:"trafficLogDir"`
}

// Module provides the signaling Server into an Fx application.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(*Server) {}),
)

// Params are inbound parameters to initialize the Server.
type Params struct {
	fx.In

	Config         config.Provider
	Lifecycle      fx.Lifecycle
	Logger         *zap.SugaredLogger
	Stats          tally.Scope
	ServerInfoFile serverinfofile.ServerInfoFile
}

// Server exposes a Hub over HTTP.
type Server struct {
	cfg      Config
	hub      *Hub
	logger   *zap.SugaredLogger
	infofile serverinfofile.ServerInfoFile

	ln       net.Listener
	server   *http.Server
	announce *zeroconf.Server
	served   chan struct{}
}

// New creates the signaling server and registers its lifecycle hooks.
func New(p Params) (*Server, error) {
	var cfg Config
	if v := p.Config.Get(_configKey); v.HasValue() {
		if err := v.Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading %s config: %w", _configKey, err)
		}
	}

	logger := p.Logger.With("component", "signaling")
	hubLogger := logger
	if cfg.TrafficLog {
		output, err := logfilewriter.SetupOutputLogger(logfilewriter.Params{
			Lifecycle:      p.Lifecycle,
			ServerInfoFile: p.ServerInfoFile,
			Dir:            cfg.TrafficLogDir,
		}, "signaling")
		if err != nil {
			return nil, fmt.Errorf("setting up signaling traffic log: %w", err)
		}
		hubLogger = logfilewriter.Tee(logger, output)
	}

	s := &Server{
		cfg:      cfg,
		hub:      NewHub(hubLogger, p.Stats.SubScope("signaling")),
		logger:   logger,
		infofile: p.ServerInfoFile,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: s.OnStart,
		OnStop:  s.OnStop,
	})
	return s, nil
}

// Hub returns the topic hub served by s.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr returns the listening address, or an empty string when the server is not running.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// OnStart starts listening when an address is configured.
func (s *Server) OnStart(ctx context.Context) error {
	if s.cfg.Address == "" {
		s.logger.Debugf("no signaling address configured, hub disabled")
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", s.cfg.Address, err)
	}
	s.ln = ln

	s.server = &http.Server{Handler: s.router()}
	s.served = make(chan struct{})
	go func() {
		defer close(s.served)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("signaling server stopped: %v", err)
		}
	}()

	addr := ln.Addr().String()
	if err := s.infofile.UpdateField(_addressOutput, addr); err != nil {
		return fmt.Errorf("outputting %q to info file: %w", _addressOutput, err)
	}
	if err := s.infofile.UpdateField(_urlOutput, "ws://"+addr+_path); err != nil {
		return fmt.Errorf("outputting %q to info file: %w", _urlOutput, err)
	}

	if s.cfg.Announce != "" {
		if err := s.startAnnouncement(ln.Addr()); err != nil {
			s.logger.Warnf("mDNS announcement disabled: %v", err)
		}
	}

	s.logger.Infow("started signaling hub", zap.String("address", addr))
	return nil
}

// OnStop closes the listener and every client connection.
func (s *Server) OnStop(ctx context.Context) error {
	if s.announce != nil {
		s.announce.Shutdown()
	}
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	s.hub.Close()
	<-s.served
	return err
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Handle(_path, s.hub)
	r.HandleFunc(_topicsPath, s.serveTopics).Methods(http.MethodGet)
	return r
}

// serveTopics reports the number of subscribers per room.
func (s *Server) serveTopics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.hub.Topics()); err != nil {
		s.logger.Debugf("writing topics response: %v", err)
	}
}

func (s *Server) startAnnouncement(addr net.Addr) error {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("unexpected listener address %v", addr)
	}
	host, _ := os.Hostname()
	server, err := zeroconf.Register(
		fmt.Sprintf("knowtis-%s", host),
		s.cfg.Announce,
		_mdnsDomain,
		tcpAddr.Port,
		[]string{"path=" + _path},
		nil,
	)
	if err != nil {
		return err
	}
	s.announce = server
	return nil
}
