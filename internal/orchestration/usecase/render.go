package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

// RenderContent maps a template code and event payload to a title, message
// and deep link. It is total: unknown codes and missing fields fall back to
// literals and the title and message are never empty.
func RenderContent(templateCode, entityType, entityID string, payload valueobject.JSONMap, baseURL string) entity.Content {
	var title, message string

	// Template codes share the event type vocabulary.
	switch entity.EventType(strings.ToUpper(strings.TrimSpace(templateCode))) {
	case entity.EventTypeStepCompleted:
		title = "Étape terminée"
		if step := pick(payload, "", "step_label", "step_name"); step != "" {
			message = fmt.Sprintf("L'étape « %s » de votre dossier est terminée.", step)
		} else {
			message = "Une étape de votre dossier est terminée."
		}

	case entity.EventTypeDocumentApproved:
		title = "Document approuvé"
		message = fmt.Sprintf("Votre %s a été approuvé.", pick(payload, "document", "document_type", "document_name"))

	case entity.EventTypeDocumentRejected:
		title = "Document refusé"
		message = fmt.Sprintf("Votre %s a été refusé.", pick(payload, "document", "document_type", "document_name"))
		if reason := pick(payload, "", "rejection_reason", "reason"); reason != "" {
			message += " Motif : " + reason
		}

	case entity.EventTypeDocumentUploaded:
		title = "Nouveau document"
		message = fmt.Sprintf("Un nouveau %s a été déposé sur %s.",
			pick(payload, "document", "document_type", "document_name"),
			dossierLabel(payload),
		)

	case entity.EventTypeAdminDocumentDelivered:
		title = "Document disponible"
		message = fmt.Sprintf("Votre %s est disponible dans votre espace.", pick(payload, "document", "document_type", "document_name"))

	case entity.EventTypePaymentConfirmation:
		title = "Paiement confirmé"
		message = fmt.Sprintf("Nous avons bien reçu votre paiement%s. Merci !", amountSuffix(payload))

	case entity.EventTypePaymentFailed:
		title = "Échec du paiement"
		message = fmt.Sprintf("Votre paiement%s n'a pas pu être traité. Veuillez réessayer.", amountSuffix(payload))

	case entity.EventTypeWelcome:
		title = "Bienvenue"
		if name := pick(payload, "", "full_name", "first_name"); name != "" {
			message = fmt.Sprintf("Bienvenue %s ! Votre espace est prêt.", name)
		} else {
			message = "Bienvenue ! Votre espace est prêt."
		}

	case entity.EventTypeAdminStepCompleted:
		title = "Étape validée"
		message = fmt.Sprintf("Notre équipe a finalisé l'étape « %s » de %s.",
			pick(payload, "en cours", "step_label", "step_name"),
			dossierLabel(payload),
		)

	default:
		title = pick(payload, "Nouvelle notification", "title")
		message = pick(payload, "Vous avez une nouvelle mise à jour.", "message")
	}

	return entity.Content{
		Title:     title,
		Message:   message,
		ActionURL: buildActionURL(entityType, entityID, payload, baseURL),
	}
}

// pick returns the first non-blank payload value among keys, or fallback.
func pick(payload valueobject.JSONMap, fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(payload.LookupString(key)); v != "" {
			return v
		}
	}
	return fallback
}

func dossierLabel(payload valueobject.JSONMap) string {
	if name := pick(payload, "", "dossier_name", "dossier_reference"); name != "" {
		return "le dossier « " + name + " »"
	}
	return "votre dossier"
}

func amountSuffix(payload valueobject.JSONMap) string {
	amount := pick(payload, "", "amount")
	if amount == "" {
		return ""
	}
	if currency := pick(payload, "", "currency"); currency != "" {
		return " de " + amount + " " + strings.ToUpper(currency)
	}
	return " de " + amount
}

func buildActionURL(entityType, entityID string, payload valueobject.JSONMap, baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	kind := strings.ToLower(strings.TrimSpace(entityType))
	dossierID := pick(payload, "", "dossier_id")

	switch {
	case kind == "document" && dossierID != "" && entityID != "":
		return base + "/dashboard/dossiers/" + url.PathEscape(dossierID) + "/documents/" + url.PathEscape(entityID)
	case dossierID != "":
		return base + "/dashboard/dossiers/" + url.PathEscape(dossierID)
	case kind == "dossier" && entityID != "":
		return base + "/dashboard/dossiers/" + url.PathEscape(entityID)
	case kind == "payment" && entityID != "":
		return base + "/dashboard/payments/" + url.PathEscape(entityID)
	default:
		return base + "/dashboard"
	}
}
