// Package mqtt mirrors the device table to Home Assistant over MQTT.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for connection
// management with automatic reconnection. On every (re-)connect it
// publishes a retained discovery config for each known device, a birth
// message ("online") to the availability topic and the current device
// states. A will message moves the availability topic to "offline" on
// unexpected disconnects. Every device change is published as a retained
// state value plus a JSON attributes document.
package mqtt
