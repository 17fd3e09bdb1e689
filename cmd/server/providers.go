package main

import "tripcast-service/internal/domain/entity"

// defaultModel returns the catalog default model for a generative provider
func defaultModel(descriptors []entity.ProviderDescriptor, name string) string {
	for _, d := range descriptors {
		if d.Name == name {
			return d.DefaultModel
		}
	}
	return ""
}
