package main

import "fyne.io/fyne/v2/widget"

// handleChannelToggle shows or hides one channel's trace.
func handleChannelToggle(state *appState, ch int) {
	state.visible[ch] = !state.visible[ch]
	state.scopeWidget.SetVisible(ch, state.visible[ch])
	updateChannelButtonStates(state)
}

// updateChannelButtonStates updates the visual state of channel buttons.
func updateChannelButtonStates(state *appState) {
	for ch, btn := range state.channelBtns {
		updateChannelButton(btn, state.visible[ch])
	}
}

// updateChannelButton highlights the button of a visible channel.
func updateChannelButton(btn *widget.Button, visible bool) {
	if btn == nil {
		return
	}
	if visible {
		btn.Importance = widget.HighImportance
	} else {
		btn.Importance = widget.MediumImportance
	}
	btn.Refresh()
}
