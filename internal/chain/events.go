package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

// decodeEvents decodes the logs that contractABI knows about. Logs emitted by
// other contracts during the same transaction are skipped.
func decodeEvents(contractABI abi.ABI, logs []*types.Log) []Event {
	events := make([]Event, 0, len(logs))
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 {
			continue
		}

		event, err := contractABI.EventByID(log.Topics[0])
		if err != nil {
			continue
		}

		args := make(map[string]any)
		if len(event.Inputs.NonIndexed()) > 0 {
			if err := contractABI.UnpackIntoMap(args, event.Name, log.Data); err != nil {
				continue
			}
		}

		var indexed abi.Arguments
		for _, input := range event.Inputs {
			if input.Indexed {
				indexed = append(indexed, input)
			}
		}
		if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
			continue
		}

		events = append(events, Event{Name: event.Name, Address: log.Address, Args: args})
	}

	return events
}
