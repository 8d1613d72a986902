package indexer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"lithosScope/internal/model"
)

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}

// ParseTopic0 converts string topic0 hashes into common.Hash.
func ParseTopic0(inputs []string) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, common.BytesToHash(data))
	}
	return topics, nil
}

// ParseContracts validates an address=kind table and lowercases its
// addresses.
func ParseContracts(inputs map[string]string) (map[string]model.ContractKind, error) {
	known := map[model.ContractKind]struct{}{
		model.ContractPairFactory:  {},
		model.ContractPair:         {},
		model.ContractVoter:        {},
		model.ContractGauge:        {},
		model.ContractBribe:        {},
		model.ContractVotingEscrow: {},
	}
	out := make(map[string]model.ContractKind, len(inputs))
	for addr, kind := range inputs {
		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("invalid contract address: %s", addr)
		}
		k := model.ContractKind(strings.ToLower(strings.TrimSpace(kind)))
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("contract %s: unknown kind %q", addr, kind)
		}
		out[strings.ToLower(addr)] = k
	}
	return out, nil
}

// ContractAddresses returns the pinned addresses in sorted order.
func ContractAddresses(contracts map[string]model.ContractKind) []string {
	out := make([]string, 0, len(contracts))
	for addr := range contracts {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
