// Package moderegistry is a pure data table: it maps a node's run
// mode to the ordered list of module kinds the entry sequencer must
// instantiate and attach, in that order.
package moderegistry

import "fmt"

// ModuleKind enumerates every kind of module the entry sequencer
// knows how to construct.
type ModuleKind string

const (
	Lock             ModuleKind = "LOCK"
	BlockMaker       ModuleKind = "BLOCKMAKER"
	CoreProtocol     ModuleKind = "COREPROTOCOL"
	Dispatcher       ModuleKind = "DISPATCHER"
	HTTPGet          ModuleKind = "HTTPGET"
	HTTPServer       ModuleKind = "HTTPSERVER"
	NetChannel       ModuleKind = "NETCHANNEL"
	BlockChannel     ModuleKind = "BLOCKCHANNEL"
	CertTxChannel    ModuleKind = "CERTTXCHANNEL"
	UserTxChannel    ModuleKind = "USERTXCHANNEL"
	DelegatedChannel ModuleKind = "DELEGATEDCHANNEL"
	Network          ModuleKind = "NETWORK"
	RPCClient        ModuleKind = "RPCCLIENT"
	RPCMode          ModuleKind = "RPCMODE"
	Service          ModuleKind = "SERVICE"
	TxPool           ModuleKind = "TXPOOL"
	Wallet           ModuleKind = "WALLET"
	Blockchain       ModuleKind = "BLOCKCHAIN"
	ForkManager      ModuleKind = "FORKMANAGER"
	Consensus        ModuleKind = "CONSENSUS"
	DataStat         ModuleKind = "DATASTAT"
	Recovery         ModuleKind = "RECOVERY"
)

// Mode selects which module kinds a run of the node instantiates.
type Mode string

const (
	Server Mode = "SERVER"
	Miner  Mode = "MINER"
	Client Mode = "CLIENT"
	Purge  Mode = "PURGE"
)

// table is the registry's only state: a static mapping from mode to
// the ordered module kinds that mode attaches. LOCK is always first
// so no other module can touch the data directory before the
// exclusive lock is held.
var table = map[Mode][]ModuleKind{
	Server: {
		Lock, Network, NetChannel, BlockChannel, CertTxChannel, UserTxChannel,
		DelegatedChannel, Dispatcher, Service, TxPool, Blockchain, ForkManager,
		Consensus, CoreProtocol, Wallet, DataStat, Recovery, HTTPServer, RPCMode,
	},
	Miner: {
		Lock, Network, NetChannel, BlockChannel, CertTxChannel, UserTxChannel,
		DelegatedChannel, Dispatcher, Service, TxPool, Blockchain, ForkManager,
		Consensus, CoreProtocol, BlockMaker, Wallet, DataStat, Recovery, HTTPServer, RPCMode,
	},
	Client: {
		Lock, HTTPGet, RPCClient, Wallet,
	},
	Purge: {
		Lock, Blockchain, DataStat, Recovery,
	},
}

// ModulesFor returns the ordered module kinds for mode.
func ModulesFor(mode Mode) ([]ModuleKind, error) {
	kinds, ok := table[mode]
	if !ok {
		return nil, fmt.Errorf("moderegistry: unknown mode %q", mode)
	}
	out := make([]ModuleKind, len(kinds))
	copy(out, kinds)
	return out, nil
}

// ParseMode validates a raw mode string against the known modes.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := table[m]; !ok {
		return "", fmt.Errorf("moderegistry: unrecognized mode %q (want SERVER, MINER, CLIENT, or PURGE)", s)
	}
	return m, nil
}
