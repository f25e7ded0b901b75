package campaign

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/interactive-solutions/go-campaign/internal"
)

type HttpHandler struct {
	engine      *Engine
	coordinator *Coordinator
}

func NewHttpHandler(engine *Engine, coordinator *Coordinator) *HttpHandler {
	return &HttpHandler{
		engine:      engine,
		coordinator: coordinator,
	}
}

func (h *HttpHandler) GetAllDefinitions(w http.ResponseWriter, r *http.Request) {

	definitions, err := h.engine.definitions.GetAll()
	if err != nil {
		http.Error(w, "Failed to retrieve definitions", 500)
		return
	}

	payload := struct {
		Data []Definition `json:"data"`
	}{definitions}

	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to convert to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *HttpHandler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		http.Error(w, "Route id var", 400)
		return
	}

	definition, err := h.engine.definitions.Get(id)
	if err != nil {
		if err == DefinitionNotFoundErr {
			http.Error(w, "Definition not found", 404)
			return
		}

		http.Error(w, "Failed to retrieve definition", 500)
		return
	}

	data, err := json.Marshal(definition)
	if err != nil {
		http.Error(w, "Failed to convert definition to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *HttpHandler) TriggerAutomation(w http.ResponseWriter, r *http.Request) {

	body := &internal.TriggerRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	event := TriggerEvent(body.Event)
	if !event.IsValid() {
		http.Error(w, "Unknown trigger event", 400)
		return
	}

	if body.RecipientId == "" {
		http.Error(w, "Missing recipient id", 400)
		return
	}

	if err := h.engine.Trigger(event, body.RecipientId, time.Now()); err != nil {
		http.Error(w, "Failed to trigger automations", 500)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) RunCampaign(w http.ResponseWriter, r *http.Request) {

	body := &internal.RunCampaignRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		http.Error(w, "Failed to parse incoming json", 400)
		return
	}

	mapping := make(VariableMapping, 0, len(body.Mapping))

	for _, entry := range body.Mapping {
		switch entry.Type {
		case "static":
			mapping = append(mapping, Static(entry.Value))

		case "field":
			mapping = append(mapping, FieldReference(entry.Value))

		default:
			http.Error(w, "Unknown mapping entry type", 400)
			return
		}
	}

	recipients := make([]Recipient, 0, len(body.Recipients))

	for _, recipient := range body.Recipients {
		recipients = append(recipients, Recipient{
			Id:     recipient.Id,
			Fields: recipient.Fields,
		})
	}

	result, err := h.coordinator.RunCampaign(r.Context(), body.Body, mapping, recipients, Channel(body.Channel))
	if err != nil {
		switch errors.Cause(err) {
		case NoRecipientsErr:
			http.Error(w, "Recipient list is empty", 400)

		case ChannelNotConfiguredErr:
			http.Error(w, "Channel is not configured", 400)

		default:
			http.Error(w, "Failed to run campaign", 500)
		}

		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Failed to convert result to json", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
