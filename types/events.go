package types

import (
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
)

// Events is a list of events, each a list of field elements. Actions share
// the representation but are folded into the account's action state.
type Events [][]common.Field

type Actions = Events

func hashList(emptyPrefix, consPrefix, elemPrefix string, list [][]common.Field) common.Field {
	h := common.HashWithPrefix(emptyPrefix)
	for i := len(list) - 1; i >= 0; i-- {
		h = common.HashWithPrefix(consPrefix, h, common.HashWithPrefix(elemPrefix, list[i]...))
	}
	return h
}

func (e Events) Hash() common.Field {
	return hashList("ZkEventsEmpty", "ZkEvents", "ZkEvent", e)
}

// ActionsHash hashes a list of actions.
func ActionsHash(a Actions) common.Field {
	return hashList("ZkActionsEmpty", "ZkActions", "ZkAction", a)
}

func (e Events) IsEmpty() bool { return len(e) == 0 }

// EmptyActionStateElement fills every slot of a new account's action state.
func EmptyActionStateElement() common.Field {
	return common.HashWithPrefix("ZkActionStateEmptyElt")
}

// PushActions folds a list of actions into an action state element.
func PushActions(state common.Field, actions Actions) common.Field {
	return common.HashWithPrefix("ZkActionState", state, ActionsHash(actions))
}

// UpdateActionState records actions emitted at slot. The newest state is
// slot 0; the older slots shift only when the first actions of a new slot
// arrive, so the window always spans distinct slots.
func UpdateActionState(state [ActionStateLength]common.Field, actions Actions, slot, lastActionSlot currency.Slot) ([ActionStateLength]common.Field, currency.Slot) {
	if actions.IsEmpty() {
		return state, lastActionSlot
	}
	out := state
	out[0] = PushActions(state[0], actions)
	if slot != lastActionSlot {
		for i := ActionStateLength - 1; i >= 1; i-- {
			out[i] = state[i-1]
		}
	}
	return out, slot
}
