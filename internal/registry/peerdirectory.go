// Package registry is the optional etcd-backed peer directory the
// NETWORK module registers into: address bootstrap only, never used
// to exchange block or transaction data.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/metabasenet/node/internal/logging"
)

// PeerInfo is the value a node publishes about itself under
// /metabasenet/peers/<node-id>.
type PeerInfo struct {
	NodeID    string    `json:"node_id"`
	Address   string    `json:"address"`
	Mode      string    `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

const peerKeyPrefix = "/metabasenet/peers/"

// PeerDirectory maintains this node's advertised address in etcd
// under a short-TTL lease, re-registering if the keep-alive channel
// closes.
type PeerDirectory struct {
	client  *clientv3.Client
	leaseID clientv3.LeaseID
	info    PeerInfo
	ttl     int64
	logger  *logging.Logger
}

// NewPeerDirectory constructs a directory entry for info, advertised
// with the given lease TTL in seconds.
func NewPeerDirectory(client *clientv3.Client, info PeerInfo, ttlSeconds int64, logger *logging.Logger) *PeerDirectory {
	return &PeerDirectory{
		client: client,
		info:   info,
		ttl:    ttlSeconds,
		logger: logger,
	}
}

func peerKey(nodeID string) string {
	return peerKeyPrefix + nodeID
}

// Register grants a lease, PUTs this node's info under its key, and
// starts a background keep-alive loop bound to ctx.
func (d *PeerDirectory) Register(ctx context.Context) error {
	lease, err := d.client.Grant(ctx, d.ttl)
	if err != nil {
		return fmt.Errorf("peer directory: grant lease: %w", err)
	}
	d.leaseID = lease.ID

	d.info.UpdatedAt = time.Now()
	data, err := json.Marshal(d.info)
	if err != nil {
		return fmt.Errorf("peer directory: marshal peer info: %w", err)
	}

	if _, err := d.client.Put(ctx, peerKey(d.info.NodeID), string(data), clientv3.WithLease(d.leaseID)); err != nil {
		return fmt.Errorf("peer directory: put peer entry: %w", err)
	}

	d.logger.Info("peer registered", "node_id", d.info.NodeID, "address", d.info.Address, "lease_id", int64(d.leaseID))

	go d.keepAlive(ctx)
	return nil
}

func (d *PeerDirectory) keepAlive(ctx context.Context) {
	ch, err := d.client.KeepAlive(ctx, d.leaseID)
	if err != nil {
		d.logger.Error("peer directory: keep-alive start failed", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ka, ok := <-ch:
			if !ok {
				d.logger.Warn("peer directory: keep-alive channel closed, re-registering")
				select {
				case <-ctx.Done():
					return
				case <-time.After(2 * time.Second):
				}
				if err := d.Register(ctx); err != nil {
					d.logger.Error("peer directory: re-registration failed", "error", err)
				}
				return
			}
			if ka == nil {
				continue
			}
		}
	}
}

// Deregister deletes this node's entry and revokes its lease.
func (d *PeerDirectory) Deregister(ctx context.Context) error {
	_, delErr := d.client.Delete(ctx, peerKey(d.info.NodeID))
	if delErr != nil {
		d.logger.Error("peer directory: delete failed", "error", delErr)
	}

	var revokeErr error
	if d.leaseID != 0 {
		_, revokeErr = d.client.Revoke(ctx, d.leaseID)
		if revokeErr != nil {
			d.logger.Error("peer directory: revoke lease failed", "error", revokeErr)
		}
	}

	if delErr != nil {
		return delErr
	}
	return revokeErr
}

// List returns every currently registered peer.
func (d *PeerDirectory) List(ctx context.Context) ([]PeerInfo, error) {
	resp, err := d.client.Get(ctx, peerKeyPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("peer directory: list: %w", err)
	}

	peers := make([]PeerInfo, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var p PeerInfo
		if err := json.Unmarshal(kv.Value, &p); err != nil {
			d.logger.Warn("peer directory: skipping malformed entry", "key", string(kv.Key), "error", err)
			continue
		}
		peers = append(peers, p)
	}
	return peers, nil
}
