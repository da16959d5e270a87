// Command treesyncctl runs a small HTTP inspection service over a single
// TreeSync group: it bootstraps (or loads) a group's ratchet tree against a
// storage.Provider backend and exposes read-only endpoints for its current
// shape. Grounded on ParichayaHQ-credence's cmd/checkpointor/main.go, which
// uses the same flag/env-override config, gorilla/mux router with a
// logging+CORS middleware chain, and signal.Notify-driven graceful
// shutdown.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/groupkey/treesync/internal/crypto"
	"github.com/groupkey/treesync/internal/storage"
	"github.com/groupkey/treesync/internal/treesync"
	"github.com/groupkey/treesync/pkg/types"
)

// serverConfig holds the HTTP server's own settings, separate from
// storage.Config, mirroring the teacher's ServerConfig/DefaultServerConfig
// split between transport and domain configuration.
type serverConfig struct {
	Address      string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Address:      "0.0.0.0",
		Port:         8090,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func main() {
	var (
		addr        = flag.String("address", defaultServerConfig().Address, "listen address")
		port        = flag.Int("port", defaultServerConfig().Port, "listen port")
		groupID     = flag.String("group-id", "default-group", "group identifier to bootstrap")
		storageKind = flag.String("storage-backend", "memory", "storage backend: memory or encrypted-file")
		storagePath = flag.String("storage-path", "", "encrypted-file backend path")
	)
	flag.Parse()

	if v := os.Getenv("TREESYNCCTL_ADDRESS"); v != "" {
		*addr = v
	}
	if v := os.Getenv("TREESYNCCTL_PORT"); v != "" {
		fmt.Sscanf(v, "%d", port)
	}

	cfg := storage.Config{Backend: *storageKind, Path: *storagePath}
	if cfg.Backend == "" {
		cfg = storage.DefaultConfig()
	}
	backend, err := cfg.Build()
	if err != nil {
		log.Fatalf("failed to build storage backend: %v", err)
	}
	provider := storage.NewProvider(backend)

	group := newGroupService(*groupID, provider)
	if err := group.bootstrapIfNeeded(); err != nil {
		log.Fatalf("failed to bootstrap group: %v", err)
	}

	sc := defaultServerConfig()
	sc.Address, sc.Port = *addr, *port

	srv := newHTTPServer(sc, group)

	log.Printf("starting treesyncctl on %s:%d (group %q)", sc.Address, sc.Port, *groupID)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down treesyncctl...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("treesyncctl stopped")
}

func newHTTPServer(sc serverConfig, group *groupService) *http.Server {
	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/leaves", group.handleListLeaves).Methods(http.MethodGet)
	v1.HandleFunc("/leaves/{index:[0-9]+}", group.handleGetLeaf).Methods(http.MethodGet)
	v1.HandleFunc("/tree-hash", group.handleTreeHash).Methods(http.MethodGet)

	handler := handlers.LoggingHandler(os.Stdout, router)
	handler = cors.Default().Handler(handler)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", sc.Address, sc.Port),
		Handler:      handler,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "treesyncctl",
	})
}

// groupService wraps a single group's storage-backed TreeSync and exposes
// it over HTTP. It is not safe for multiple concurrently-running commits;
// a real deployment would layer a per-group lock ahead of it, as spec's
// storage.Provider already does at the backend level.
type groupService struct {
	groupID  types.GroupID
	provider *storage.Provider
	crypto   crypto.Provider
}

func newGroupService(groupID string, provider *storage.Provider) *groupService {
	return &groupService{
		groupID:  types.GroupID(groupID),
		provider: provider,
		crypto:   crypto.NewHPKEProvider(),
	}
}

func (g *groupService) bootstrapIfNeeded() error {
	nodes, found, err := storage.Read[[]treesync.Node](g.provider, storage.LabelTreeSyncNode, g.groupID.String(), 1)
	if err != nil {
		return err
	}
	if found && len(nodes) > 0 {
		return nil
	}

	pub, _, err := g.crypto.DeriveKeyPair([]byte("bootstrap leaf secret for " + g.groupID.String()))
	if err != nil {
		return err
	}
	signingKey, err := crypto.NewEd25519KeyPair()
	if err != nil {
		return fmt.Errorf("treesyncctl: generate founder signing key: %w", err)
	}
	signer := crypto.NewEd25519Signer(signingKey)
	proof, err := signer.Sign(pub)
	if err != nil {
		return fmt.Errorf("treesyncctl: sign founder encryption key: %w", err)
	}
	if !crypto.NewEd25519Verifier().Verify(signer.PublicKey(), pub, proof) {
		return fmt.Errorf("treesyncctl: founder proof-of-possession failed self-check")
	}
	firstLeaf := treesync.LeafNodeContent{
		EncryptionKey: pub,
		Credential: treesync.Credential{
			Identity:        []byte("founder"),
			SignatureScheme: "ed25519",
			SignatureKey:    signer,
			PublicKey:       signer.PublicKey(),
		},
	}
	ts := treesync.New(g.groupID, g.crypto, firstLeaf)
	return storage.Write(g.provider, storage.LabelTreeSyncNode, g.groupID.String(), 1, ts.ExportNodes())
}

func (g *groupService) loadTree() (*treesync.TreeSync, error) {
	nodes, found, err := storage.Read[[]treesync.Node](g.provider, storage.LabelTreeSyncNode, g.groupID.String(), 1)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("treesyncctl: group %q has not been bootstrapped", g.groupID.String())
	}
	return treesync.FromNodes(g.groupID, g.crypto, nodes)
}

func (g *groupService) handleListLeaves(w http.ResponseWriter, r *http.Request) {
	ts, err := g.loadTree()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"group_id":   g.groupID.String(),
		"leaf_count": ts.LeafCount(),
	})
}

func (g *groupService) handleGetLeaf(w http.ResponseWriter, r *http.Request) {
	ts, err := g.loadTree()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var index uint32
	fmt.Sscanf(mux.Vars(r)["index"], "%d", &index)
	diff := ts.Diff(index)
	leaf, present, err := diff.Leaf(index)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"present": present,
		"leaf":    leaf,
	})
}

func (g *groupService) handleTreeHash(w http.ResponseWriter, r *http.Request) {
	ts, err := g.loadTree()
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	diff := ts.Diff(0)
	hash, err := diff.SetTreeHash()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"group_id":  g.groupID.String(),
		"tree_hash": fmt.Sprintf("%x", hash),
	})
}
