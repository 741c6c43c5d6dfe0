package handler

import (
	"github.com/iliyamo/farmhub/internal/model"
	"github.com/iliyamo/farmhub/internal/service"
)

// Response shapes that add derived fields to stored rows.

type productListingView struct {
	model.ProductListing
	AverageRating float64 `json:"average_rating"`
}

func presentProductListing(l model.ProductListing) productListingView {
	return productListingView{ProductListing: l, AverageRating: l.AverageRating()}
}

func presentProductListings(ls []model.ProductListing) []productListingView {
	out := make([]productListingView, len(ls))
	for i, l := range ls {
		out[i] = presentProductListing(l)
	}
	return out
}

type workerProfileView struct {
	model.WorkerProfile
	AverageRating float64 `json:"average_rating"`
}

func presentWorkerProfile(p model.WorkerProfile) workerProfileView {
	return workerProfileView{WorkerProfile: p, AverageRating: p.AverageRating()}
}

func presentWorkerProfiles(ps []model.WorkerProfile) []workerProfileView {
	out := make([]workerProfileView, len(ps))
	for i, p := range ps {
		out[i] = presentWorkerProfile(p)
	}
	return out
}

type materialView struct {
	model.FarmMaterial
	LowStock bool `json:"low_stock"`
}

func presentMaterial(m model.FarmMaterial) materialView {
	return materialView{FarmMaterial: m, LowStock: m.LowStock()}
}

func presentMaterials(ms []model.FarmMaterial) []materialView {
	out := make([]materialView, len(ms))
	for i, m := range ms {
		out[i] = presentMaterial(m)
	}
	return out
}

type notificationView struct {
	model.Notification
	IsRead bool `json:"is_read"`
}

func presentNotification(n model.Notification) notificationView {
	return notificationView{Notification: n, IsRead: n.Read()}
}

func presentNotifications(ns []model.Notification) []notificationView {
	out := make([]notificationView, len(ns))
	for i, n := range ns {
		out[i] = presentNotification(n)
	}
	return out
}

type supplyOrderView struct {
	model.SupplyOrder
	Warning string `json:"warning,omitempty"`
}

func presentSupplyResult(r service.SupplyOrderResult) supplyOrderView {
	return supplyOrderView{SupplyOrder: r.Order, Warning: r.Warning}
}

type authResponse struct {
	User  model.User        `json:"user"`
	Token service.TokenPair `json:"tokens"`
}
