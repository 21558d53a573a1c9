package common

import "fmt"

// Формат callback data. ID передаются через двоеточие.
const (
	CbMySlots    = "my_slots"
	CbSlot       = "slot:"           // slot:slot_id
	CbToggle     = "slot_toggle:"    // slot_toggle:slot_id
	CbRename     = "slot_rename:"    // slot_rename:slot_id
	CbDelete     = "slot_delete:"    // slot_delete:slot_id
	CbDeleteOK   = "slot_delete_ok:" // slot_delete_ok:slot_id
	CbMarketPage = "market_page:"    // market_page:page
	CbOffer      = "offer:"          // offer:target_slot_id
	CbPropose    = "propose:"        // propose:my_slot_id:target_slot_id
	CbAccept     = "accept:"         // accept:request_id
	CbReject     = "reject:"         // reject:request_id
	CbIncoming   = "incoming"
	CbOutgoing   = "outgoing"
)

func SlotData(prefix string, id int64) string {
	return fmt.Sprintf("%s%d", prefix, id)
}

func ProposeData(mySlotID, targetSlotID int64) string {
	return fmt.Sprintf("%s%d:%d", CbPropose, mySlotID, targetSlotID)
}
