package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/awslabs/goformation"
	"github.com/awslabs/goformation/cloudformation"
)

// TableFromTemplate reads the CloudFormation template under path and returns
// the CreateTableInput for the table resource called name.
func TableFromTemplate(path, name string) (dynamodb.CreateTableInput, error) {
	tmpl, err := goformation.Open(path)
	if err != nil {
		return dynamodb.CreateTableInput{}, fmt.Errorf("failed to open template %s: %w", path, err)
	}

	table, err := tmpl.GetAWSDynamoDBTableWithName(name)
	if err != nil {
		return dynamodb.CreateTableInput{}, fmt.Errorf("template %s: %w", path, err)
	}
	return FromCloudFormationToCreateInput(*table), nil
}

// FromCloudFormationToCreateInput transforms DynamoDB table from CloudFormation template
// into CreateTableInput struct, that can be used with aws-sdk-go-v2 to create the table.
func FromCloudFormationToCreateInput(t cloudformation.AWSDynamoDBTable) dynamodb.CreateTableInput {
	var input dynamodb.CreateTableInput
	for _, attrs := range t.AttributeDefinitions {
		input.AttributeDefinitions = append(input.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(attrs.AttributeName),
			AttributeType: types.ScalarAttributeType(attrs.AttributeType),
		})
	}
	input.KeySchema = keySchema(t.KeySchema)

	for _, idx := range t.LocalSecondaryIndexes {
		input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(idx.IndexName),
			KeySchema:  keySchema(idx.KeySchema),
			Projection: projection(idx.Projection),
		})
	}
	for _, idx := range t.GlobalSecondaryIndexes {
		input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName:             aws.String(idx.IndexName),
			KeySchema:             keySchema(idx.KeySchema),
			Projection:            projection(idx.Projection),
			ProvisionedThroughput: throughput(idx.ProvisionedThroughput),
		})
	}

	input.TableName = aws.String(t.TableName)
	if t.BillingMode != "" {
		input.BillingMode = types.BillingMode(t.BillingMode)
	}
	input.ProvisionedThroughput = throughput(t.ProvisionedThroughput)
	return input
}

func keySchema(keys []cloudformation.AWSDynamoDBTable_KeySchema) []types.KeySchemaElement {
	var out []types.KeySchemaElement
	for _, key := range keys {
		out = append(out, types.KeySchemaElement{
			AttributeName: aws.String(key.AttributeName),
			KeyType:       types.KeyType(key.KeyType),
		})
	}
	return out
}

func projection(p *cloudformation.AWSDynamoDBTable_Projection) *types.Projection {
	if p == nil {
		return &types.Projection{ProjectionType: types.ProjectionTypeAll}
	}
	return &types.Projection{
		ProjectionType:   types.ProjectionType(p.ProjectionType),
		NonKeyAttributes: p.NonKeyAttributes,
	}
}

func throughput(p *cloudformation.AWSDynamoDBTable_ProvisionedThroughput) *types.ProvisionedThroughput {
	if p == nil {
		return nil
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(p.ReadCapacityUnits),
		WriteCapacityUnits: aws.Int64(p.WriteCapacityUnits),
	}
}
