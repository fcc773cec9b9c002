// Copyright 2025 The PropertyPal Scraper Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GoogleKeyFromADC returns the secret of the API key named displayName in
// the project of the Application Default Credentials.
func GoogleKeyFromADC(ctx context.Context, displayName string) (string, error) {
	if displayName == "" {
		return "", errors.New("no API key display name configured")
	}

	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return "", fmt.Errorf("application default credentials: %w", err)
	}

	parent, err := keysParent(creds.ProjectID)
	if err != nil {
		return "", err
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("API keys client: %w", err)
	}
	defer client.Close()

	name, err := keyName(client.ListKeys(ctx, &apikeyspb.ListKeysRequest{Parent: parent}), displayName)
	if err != nil {
		return "", fmt.Errorf("%s: %w", parent, err)
	}

	// listed keys carry no secret
	Debugf("Reading the secret of %s", name)

	resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	if resp.KeyString == "" {
		return "", fmt.Errorf("%s has no secret", name)
	}

	return resp.KeyString, nil
}

// keysParent is the API Keys collection of project.
func keysParent(project string) (string, error) {
	if project == "" {
		return "", errors.New("default credentials carry no project id; run `gcloud auth application-default set-quota-project`")
	}

	return "projects/" + project + "/locations/global", nil
}

// keyName returns the resource name of the first key labelled displayName.
func keyName(it *apikeys.KeyIterator, displayName string) (string, error) {
	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return "", fmt.Errorf("no API key named %q", displayName)
		}

		if err != nil {
			return "", fmt.Errorf("listing API keys: %w", err)
		}

		if key.GetDisplayName() == displayName {
			return key.GetName(), nil
		}
	}
}
