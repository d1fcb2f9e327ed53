package firestore

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"StayMap-App/internal/infrastructure/logging"
)

// defaultCredentialsFile ローカル開発用のサービスアカウントキー
const defaultCredentialsFile = "staymap-firestore-key.json"

type FirestoreClient struct {
	client *firestore.Client
}

// NewFirestoreClient 表示モード等のユーザー設定を保存するFirestoreクライアントを作成
func NewFirestoreClient(ctx context.Context, projectID string) (*FirestoreClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("FIRESTORE_PROJECT_ID環境変数が設定されていません")
	}

	var opts []option.ClientOption

	// Cloud Run上ではデフォルト認証、ローカルでは認証ファイルがあれば使う
	if os.Getenv("K_SERVICE") != "" {
		logging.Info().Msg("☁️ Cloud Run環境: デフォルト認証を使用")
	} else {
		credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
		if credentialsFile == "" {
			credentialsFile = defaultCredentialsFile
		}
		if _, err := os.Stat(credentialsFile); err != nil {
			logging.Warn().Str("file", credentialsFile).Msg("⚠️ 認証ファイルが見つからないためデフォルト認証を使用")
		} else {
			logging.Info().Str("file", credentialsFile).Msg("📄 認証ファイルを使用")
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの作成に失敗: %w", err)
	}
	logging.Info().Str("project_id", projectID).Msg("✅ Firestoreクライアント初期化完了")

	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
